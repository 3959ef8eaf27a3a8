package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Lixing-Zhang/farmstand/internal/config"
	"github.com/Lixing-Zhang/farmstand/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	productsCollection = "products"
	farmsCollection    = "farms"
)

// MongoStore implements Store on a MongoDB database.
type MongoStore struct {
	client       *mongo.Client
	products     *mongo.Collection
	farms        *mongo.Collection
	transactions bool
	logger       *slog.Logger
}

// ConnectMongo opens a client, verifies it with a ping and returns the store.
// Close must be called to release the connection pool.
func ConnectMongo(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	db := client.Database(cfg.Database)
	return &MongoStore{
		client:       client,
		products:     db.Collection(productsCollection),
		farms:        db.Collection(farmsCollection),
		transactions: cfg.Transactions,
		logger:       logger,
	}, nil
}

func (s *MongoStore) Products() ProductRepository { return mongoProducts{s.products} }

func (s *MongoStore) Farms() FarmRepository { return mongoFarms{s.farms} }

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// WithinTx runs fn in a multi-document transaction. With transactions
// disabled, fn runs directly and registered compensations undo partial work.
func (s *MongoStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if !s.transactions {
		return RunCompensated(ctx, fn, s.logger)
	}

	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

type mongoProducts struct {
	coll *mongo.Collection
}

func (r mongoProducts) Find(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	query := bson.M{}
	if filter.Category != "" {
		query["category"] = filter.Category
	}

	cursor, err := r.coll.Find(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to find products: %w", err)
	}

	products := make([]models.Product, 0)
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}
	return products, nil
}

func (r mongoProducts) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	var p models.Product
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	return &p, nil
}

func (r mongoProducts) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}

	cursor, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to find products: %w", err)
	}

	var found []models.Product
	if err := cursor.All(ctx, &found); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}

	byID := make(map[primitive.ObjectID]models.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	products := make([]models.Product, 0, len(found))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			products = append(products, p)
		}
	}
	return products, nil
}

func (r mongoProducts) Create(ctx context.Context, p *models.Product) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if _, err := r.coll.InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateID
		}
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

func (r mongoProducts) Update(ctx context.Context, p *models.Product) (*models.Product, error) {
	update := bson.M{"$set": bson.M{
		"name":     p.Name,
		"price":    p.Price,
		"category": p.Category,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Product
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": p.ID}, update, opts).Decode(&updated); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return &updated, nil
}

func (r mongoProducts) Delete(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	var deleted models.Product
	if err := r.coll.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&deleted); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to delete product: %w", err)
	}
	return &deleted, nil
}

func (r mongoProducts) DeleteMany(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete products: %w", err)
	}
	return res.DeletedCount, nil
}

type mongoFarms struct {
	coll *mongo.Collection
}

func (r mongoFarms) FindAll(ctx context.Context) ([]models.Farm, error) {
	cursor, err := r.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to find farms: %w", err)
	}

	farms := make([]models.Farm, 0)
	if err := cursor.All(ctx, &farms); err != nil {
		return nil, fmt.Errorf("failed to decode farms: %w", err)
	}
	return farms, nil
}

func (r mongoFarms) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Farm, error) {
	var f models.Farm
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&f); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrFarmNotFound
		}
		return nil, fmt.Errorf("failed to find farm: %w", err)
	}
	return &f, nil
}

func (r mongoFarms) Create(ctx context.Context, f *models.Farm) error {
	if f.ID.IsZero() {
		f.ID = primitive.NewObjectID()
	}
	// $addToSet needs an array, not null.
	if f.Products == nil {
		f.Products = []primitive.ObjectID{}
	}
	if _, err := r.coll.InsertOne(ctx, f); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateID
		}
		return fmt.Errorf("failed to create farm: %w", err)
	}
	return nil
}

func (r mongoFarms) AddProduct(ctx context.Context, farmID, productID primitive.ObjectID) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": farmID},
		bson.M{"$addToSet": bson.M{"products": productID}},
	)
	if err != nil {
		return fmt.Errorf("failed to add product to farm: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrFarmNotFound
	}
	return nil
}

func (r mongoFarms) RemoveProduct(ctx context.Context, farmID, productID primitive.ObjectID) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": farmID},
		bson.M{"$pull": bson.M{"products": productID}},
	)
	if err != nil {
		return fmt.Errorf("failed to remove product from farm: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrFarmNotFound
	}
	return nil
}

func (r mongoFarms) Delete(ctx context.Context, id primitive.ObjectID) (*models.Farm, error) {
	var deleted models.Farm
	if err := r.coll.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&deleted); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrFarmNotFound
		}
		return nil, fmt.Errorf("failed to delete farm: %w", err)
	}
	return &deleted, nil
}

package handlers

import (
	"encoding/json"
	"fmt"
	"math"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/Lixing-Zhang/farmstand/internal/apperrors"
	"github.com/Lixing-Zhang/farmstand/internal/models"
)

func isJSON(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

func errInvalidBody(err error) error {
	return apperrors.Wrap(err, http.StatusBadRequest, "Invalid request body")
}

// decodeProductInput reads a product from a JSON body or a submitted form.
func decodeProductInput(r *http.Request) (models.ProductInput, error) {
	var in models.ProductInput

	if isJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			return in, errInvalidBody(err)
		}
		in.Name = strings.TrimSpace(in.Name)
		in.Category = models.ParseCategory(string(in.Category))
		return in, nil
	}

	if err := r.ParseForm(); err != nil {
		return in, errInvalidBody(err)
	}
	in.Name = strings.TrimSpace(r.PostForm.Get("name"))
	in.Category = models.ParseCategory(r.PostForm.Get("category"))

	if raw := strings.TrimSpace(r.PostForm.Get("price")); raw != "" {
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
			verr := &apperrors.ValidationError{Model: "Product"}
			verr.Add("price", fmt.Sprintf("Cast to Number failed for value %q at path `price`", raw))
			return in, verr
		}
		in.Price = &price
	}
	return in, nil
}

// decodeFarmInput reads a farm from a JSON body or a submitted form.
func decodeFarmInput(r *http.Request) (models.FarmInput, error) {
	var in models.FarmInput

	if isJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			return in, errInvalidBody(err)
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return in, errInvalidBody(err)
		}
		in.Name = r.PostForm.Get("name")
		in.City = r.PostForm.Get("city")
		in.Email = r.PostForm.Get("email")
	}

	in.Name = strings.TrimSpace(in.Name)
	in.City = strings.TrimSpace(in.City)
	in.Email = strings.TrimSpace(in.Email)
	return in, nil
}

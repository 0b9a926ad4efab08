package handlers

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/mongo"

	"tours_backend/errors"
)

const (
	StatusSuccess = "success"
	StatusFail    = "fail"
	StatusError   = "error"
)

// Env is set once at startup; outside production error responses carry a
// stack trace.
var Env = "production"

func jsonResponse(writer http.ResponseWriter, statusCode int, body interface{}) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(statusCode)
	if err := json.NewEncoder(writer).Encode(body); err != nil {
		http.Error(writer, err.Error(), http.StatusInternalServerError)
	}
}

// WriteData writes the success envelope.
func WriteData(writer http.ResponseWriter, statusCode int, data map[string]interface{}) {
	jsonResponse(writer, statusCode, map[string]interface{}{
		"status": StatusSuccess,
		"data":   data,
	})
}

// WriteList writes the success envelope for list endpoints, with the
// result count alongside the data. An empty result set is a normal
// response, not an error.
func WriteList(writer http.ResponseWriter, resource string, results int, docs interface{}) {
	jsonResponse(writer, http.StatusOK, map[string]interface{}{
		"status":  StatusSuccess,
		"results": results,
		"data":    map[string]interface{}{resource: docs},
	})
}

// translate maps storage and validation errors onto the error taxonomy.
// Call sites pass errors through untouched; this is the single place that
// knows about driver-specific failures.
func translate(err error) *errors.AppError {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	if err == mongo.ErrNoDocuments {
		return errors.New(errors.NotFoundError, 404)
	}

	if mongo.IsDuplicateKeyError(err) {
		return errors.New("Duplicate field value. Please use another value!", 400)
	}

	var validationErrors validator.ValidationErrors
	if stderrors.As(err, &validationErrors) {
		parts := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			parts = append(parts, fmt.Sprintf("%s failed on the '%s' rule", fieldError.Field(), fieldError.Tag()))
		}
		return errors.New("Invalid input data. "+strings.Join(parts, ". "), 400)
	}

	return errors.New(err.Error(), 500)
}

// WriteError writes the error envelope. 4xx errors report as "fail", 5xx
// as "error"; stack traces only leave the process outside production.
func WriteError(writer http.ResponseWriter, err error) {
	appErr := translate(err)

	status := StatusError
	if appErr.StatusCode >= 400 && appErr.StatusCode < 500 {
		status = StatusFail
	}

	body := map[string]interface{}{
		"status":  status,
		"message": appErr.Message,
	}
	if Env == "development" {
		body["stack"] = string(debug.Stack())
	}

	jsonResponse(writer, appErr.StatusCode, body)
}

package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"tours_backend/authorization"
	"tours_backend/domain"
	"tours_backend/errors"
	application "tours_backend/service"
)

const maxPhotoBytes = 10 << 20

type UserHandler struct {
	*Factory[*domain.User]
	service *application.UserService
	logger  *log.Logger
}

func NewUserHandler(factory *Factory[*domain.User], service *application.UserService, logger *log.Logger) *UserHandler {
	return &UserHandler{Factory: factory, service: service, logger: logger}
}

func (handler *UserHandler) GetMe(writer http.ResponseWriter, req *http.Request) {
	user, ok := authorization.UserFromContext(req.Context())
	if !ok {
		WriteError(writer, errors.New(errors.MissingTokenError, 401))
		return
	}
	WriteData(writer, http.StatusOK, map[string]interface{}{"user": user})
}

// UpdateMe accepts either a JSON body or a multipart form with an optional
// photo part. Password fields are rejected here, the password has its own
// route.
func (handler *UserHandler) UpdateMe(writer http.ResponseWriter, req *http.Request) {
	user, ok := authorization.UserFromContext(req.Context())
	if !ok {
		WriteError(writer, errors.New(errors.MissingTokenError, 401))
		return
	}

	body, photo, photoExt, err := parseProfileBody(req)
	if err != nil {
		WriteError(writer, err)
		return
	}

	updated, err := handler.service.UpdateProfile(req.Context(), user, body, photo, photoExt)
	if err != nil {
		WriteError(writer, err)
		return
	}

	WriteData(writer, http.StatusOK, map[string]interface{}{"user": updated})
}

func (handler *UserHandler) DeleteMe(writer http.ResponseWriter, req *http.Request) {
	user, ok := authorization.UserFromContext(req.Context())
	if !ok {
		WriteError(writer, errors.New(errors.MissingTokenError, 401))
		return
	}

	if err := handler.service.Deactivate(req.Context(), user); err != nil {
		WriteError(writer, err)
		return
	}

	writer.WriteHeader(http.StatusNoContent)
}

// CreateUser exists so the admin collection route answers something
// sensible; accounts are only created through signup.
func (handler *UserHandler) CreateUser(writer http.ResponseWriter, req *http.Request) {
	WriteError(writer, errors.New("This route is not defined! Please use /signup instead", 500))
}

func parseProfileBody(req *http.Request) (body map[string]interface{}, photo []byte, photoExt string, err error) {
	if !strings.HasPrefix(req.Header.Get("Content-Type"), "multipart/") {
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			return nil, nil, "", errors.New(errors.InvalidRequestFormatError, 400)
		}
		return body, nil, "", nil
	}

	if err := req.ParseMultipartForm(maxPhotoBytes); err != nil {
		return nil, nil, "", errors.New(errors.InvalidRequestFormatError, 400)
	}

	body = map[string]interface{}{}
	for field, values := range req.MultipartForm.Value {
		if len(values) > 0 {
			body[field] = values[0]
		}
	}

	file, header, err := req.FormFile("photo")
	if err == http.ErrMissingFile {
		return body, nil, "", nil
	}
	if err != nil {
		return nil, nil, "", errors.New(errors.InvalidRequestFormatError, 400)
	}
	defer file.Close()

	photo, err = io.ReadAll(file)
	if err != nil {
		return nil, nil, "", errors.New(errors.InvalidRequestFormatError, 400)
	}

	return body, photo, filepath.Ext(header.Filename), nil
}

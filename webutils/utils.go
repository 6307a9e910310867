package webutils

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/mogaika/retargeter/diag"
)

func WriteFileHeaders(w http.ResponseWriter, name string) {
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+strings.ReplaceAll(name, "\"", "_")+"\"")
}

func WriteFile(w http.ResponseWriter, in io.Reader, name string) {
	WriteFileHeaders(w, name)
	if _, err := io.Copy(w, in); err != nil {
		log.Printf("Error when writing file %q: %v", name, err)
	}
}

func WriteJson(w http.ResponseWriter, data interface{}) {
	res, err := json.Marshal(data)
	if err != nil {
		WriteError(w, err)
	} else {
		w.Header().Set("Content-Type", "application/json")
		WriteResult(w, res)
	}
}

func WriteJsonFile(w http.ResponseWriter, v interface{}, fileName string) {
	if data, err := json.MarshalIndent(v, "", "  "); err != nil {
		WriteError(w, errors.Wrapf(err, "Failed to marshal"))
	} else {
		WriteFile(w, bytes.NewReader(data), fileName+".json")
	}
}

// ReadFormFile returns the content of a multipart form file sent with POST.
func ReadFormFile(r *http.Request, formFileKey string) ([]byte, string, error) {
	if strings.ToUpper(r.Method) != "POST" {
		return nil, "", diag.Errorf(diag.InvalidInput, "Invalid http method %q", r.Method)
	}

	f, header, err := r.FormFile(formFileKey)
	if err != nil {
		return nil, "", diag.Errorf(diag.InvalidInput, "Failed to get file %q: %v", formFileKey, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", errors.Wrapf(err, "Failed to read")
	}
	return data, header.Filename, nil
}

func ReadJsonFile(r *http.Request, formFileKey string, v interface{}) error {
	data, _, err := ReadFormFile(r, formFileKey)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return diag.Errorf(diag.InvalidInput, "Failed to unmarshal: %v", err)
	}
	return nil
}

// ReadJson decodes the request body into v.
func ReadJson(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return diag.Errorf(diag.InvalidInput, "Failed to unmarshal body: %v", err)
	}
	return nil
}

func WriteResult(w http.ResponseWriter, data []byte) {
	_, err := w.Write(data)
	if err != nil {
		log.Printf("Error when writing response: %v", err)
	}
}

// StatusOf maps error kinds to http status codes.
func StatusOf(err error) int {
	switch diag.KindOf(err) {
	case diag.InvalidInput, diag.MappingEmpty, diag.PoseMismatch:
		return http.StatusBadRequest
	case diag.NotInitialized:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func WriteError(w http.ResponseWriter, err error) {
	type jError struct {
		Error string `json:"error"`
		Kind  string `json:"kind,omitempty"`
	}
	e := jError{Error: err.Error()}
	if k := diag.KindOf(err); k != diag.KindNone {
		e.Kind = k.String()
	}
	data, merr := json.Marshal(&e)
	if merr != nil {
		log.Printf("Error marshaling error '%v': %v", err, merr)
		return
	}
	log.Printf("HERR: %v", string(data))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(StatusOf(err))
	WriteResult(w, data)
}

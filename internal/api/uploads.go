package api

import (
	"database/sql"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"dmchat/internal/database"
	"dmchat/internal/server"
)

const (
	maxUploadSize = 10 << 20

	audioUploadDir   = "audio"
	pictureUploadDir = "profile_pictures"

	defaultProfilePicture = "default.png"
)

var allowedAudioExtensions = map[string]struct{}{
	"webm": {},
	"wav":  {},
	"mp3":  {},
	"ogg":  {},
}

var allowedImageExtensions = map[string]struct{}{
	"png":  {},
	"jpg":  {},
	"jpeg": {},
	"gif":  {},
}

func fileExtension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

type AudioMessageResponse struct {
	Success  bool   `json:"success"`
	Filename string `json:"filename"`
}

// saveUpload stores an uploaded file under <uploadDir>/<subDir> with a
// fresh random name, keeping the original extension.
func (a *App) saveUpload(file multipart.File, originalName, subDir string) (string, error) {
	filename := uuid.NewString() + "." + fileExtension(originalName)

	dir := filepath.Join(a.uploadDir, subDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	dst, err := os.Create(filepath.Join(dir, filename))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(dst.Name())
		return "", err
	}

	return filename, nil
}

func (a *App) removeUpload(subDir, filename string) {
	if filename == "" || filename == defaultProfilePicture {
		return
	}

	if err := os.Remove(filepath.Join(a.uploadDir, subDir, filename)); err != nil && !os.IsNotExist(err) {
		a.log.Printf("remove upload %s/%s: %v", subDir, filename, err)
	}
}

func (a *App) uploadAudio(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := a.db.GetAccountById(userId)
	if err != nil {
		errResp := NewUnauthorizedError()
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		errResp := NewBadRequestError()
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	recipientId, err := strconv.Atoi(r.FormValue("recipient_id"))
	if err != nil {
		errResp := NewBadRequestError()
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		errResp := NewValidationError("no audio file")
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}
	defer file.Close()

	if header.Filename == "" {
		errResp := NewValidationError("no selected file")
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if _, ok := allowedAudioExtensions[fileExtension(header.Filename)]; !ok {
		errResp := NewValidationError("invalid file type")
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	filename, err := a.saveUpload(file, header.Filename, audioUploadDir)
	if err != nil {
		a.log.Println("save audio upload:", err)
		errResp := NewInternalServerError(err)
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if _, err := a.cs.SendAudioMessage(user, recipientId, filename); err != nil {
		a.removeUpload(audioUploadDir, filename)

		var errResp *ApiError
		if errors.Is(err, server.ErrUnknownRecipient) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	a.writeJson(w, http.StatusOK, AudioMessageResponse{
		Success:  true,
		Filename: filename,
	})
}

func (a *App) updateAccountMultipart(w http.ResponseWriter, r *http.Request, curUser database.User) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		errResp := NewBadRequestError()
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	updated, apiErr := a.applyAccountUpdate(curUser, r.FormValue("username"), r.FormValue("email"))
	if apiErr != nil {
		a.writeJson(w, apiErr.StatusCode, apiErr)
		return
	}

	file, header, err := r.FormFile("profile_picture")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			a.writeJson(w, http.StatusOK, a.userView(updated))
			return
		}
		errResp := NewBadRequestError()
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}
	defer file.Close()

	if _, ok := allowedImageExtensions[fileExtension(header.Filename)]; !ok {
		errResp := NewValidationError("invalid file type")
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	filename, err := a.saveUpload(file, header.Filename, pictureUploadDir)
	if err != nil {
		a.log.Println("save profile picture:", err)
		errResp := NewInternalServerError(err)
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	updated, err = a.db.UpdateProfilePicture(curUser.Id, filename)
	if err != nil {
		a.removeUpload(pictureUploadDir, filename)
		errResp := NewInternalServerError(err)
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	a.removeUpload(pictureUploadDir, curUser.ProfilePicture)

	a.writeJson(w, http.StatusOK, a.userView(updated))
}

func (a *App) deleteAccount(w http.ResponseWriter, _ *http.Request, userId int) {
	user, err := a.db.GetAccountById(userId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := a.db.DeleteAccount(userId); err != nil {
		errResp := NewInternalServerError(err)
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	a.removeUpload(pictureUploadDir, user.ProfilePicture)

	http.SetCookie(w, createJwtCookie("", time.Duration(time.Unix(0, 0).Unix())))
	w.WriteHeader(http.StatusNoContent)
}

// serveUpload serves stored blobs to authenticated users only.
func (a *App) serveUpload(w http.ResponseWriter, r *http.Request) {
	rel := strings.TrimPrefix(r.URL.Path, "/uploads/")

	subDir, filename, found := strings.Cut(rel, "/")
	if !found || (subDir != audioUploadDir && subDir != pictureUploadDir) {
		errResp := NewNotFoundError()
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// reject anything that is not a bare file name
	if filename == "" || filename != filepath.Base(filepath.Clean(filename)) {
		errResp := NewNotFoundError()
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	http.ServeFile(w, r, filepath.Join(a.uploadDir, subDir, filename))
}

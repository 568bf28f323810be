package server

import (
	"time"

	"github.com/google/uuid"

	"github.com/noisersup/filestore-api/models"
)

// REQUESTS

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UploadRequest struct {
	Name     string           `json:"name"`
	Kind     string           `json:"kind"`
	ParentId models.ParentRef `json:"parentId"`
	IsPublic bool             `json:"isPublic"`
	Data     string           `json:"data"` // base64 payload, required unless kind is folder
}

// RESPONSES

type ErrResponse struct {
	Error string `json:"error"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type UserResponse struct {
	Id    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

type StatusResponse struct {
	Redis bool `json:"redis"`
	Db    bool `json:"db"`
}

type StatsResponse struct {
	Users int64 `json:"users"`
	Files int64 `json:"files"`
}

// FileResponse is the outward shape of a file record. The on-disk blob
// path is deliberately absent: it is an internal detail.
type FileResponse struct {
	Id        uuid.UUID        `json:"id"`
	UserId    uuid.UUID        `json:"userId"`
	Name      string           `json:"name"`
	Kind      string           `json:"kind"`
	IsPublic  bool             `json:"isPublic"`
	ParentId  models.ParentRef `json:"parentId"`
	CreatedAt time.Time        `json:"createdAt"`
}

func toFileResponse(f *models.File) FileResponse {
	return FileResponse{
		Id:        f.Id,
		UserId:    f.UserId,
		Name:      f.Name,
		Kind:      f.Kind,
		IsPublic:  f.IsPublic,
		ParentId:  f.Parent,
		CreatedAt: f.CreatedAt,
	}
}

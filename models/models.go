package models

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// File kinds accepted by the upload endpoint.
const (
	KindFolder = "folder"
	KindFile   = "file"
	KindImage  = "image"
)

func ValidKind(kind string) bool {
	return kind == KindFolder || kind == KindFile || kind == KindImage
}

type User struct {
	Id           uuid.UUID
	Email        string
	PasswordHash string // SHA-1 hex of the plaintext password
}

type File struct {
	Id        uuid.UUID
	UserId    uuid.UUID
	Name      string
	Kind      string
	Parent    ParentRef
	IsPublic  bool
	LocalPath string // empty for folders
	CreatedAt time.Time
}

// DerivativeJob is the unit of work handed to thumbnail workers.
// It lives only on the queue and is never persisted to the metadata store.
type DerivativeJob struct {
	FileId      uuid.UUID `json:"fileId"`
	UserId      uuid.UUID `json:"userId"`
	RequestedAt time.Time `json:"requestedAt"`
}

type Metadata interface {
	Close()
	CreateUser(ctx context.Context, email, passwordHash string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserById(ctx context.Context, id uuid.UUID) (*User, error)
	CountUsers(ctx context.Context) (int64, error)
	CountFiles(ctx context.Context) (int64, error)
	CreateFile(ctx context.Context, f *File) error
	GetFile(ctx context.Context, id uuid.UUID) (*File, error)
	GetUserFile(ctx context.Context, id, userId uuid.UUID) (*File, error)
	SetPublic(ctx context.Context, id, userId uuid.UUID, public bool) (*File, error)
	ListFiles(ctx context.Context, userId uuid.UUID, parent ParentRef, page, pageSize int) ([]File, error)
	Alive(ctx context.Context) bool
}

type Queue interface {
	Enqueue(job DerivativeJob) error
	Dequeue(timeout time.Duration) (payload string, job *DerivativeJob, err error)
	Ack(payload string) error
	Alive() bool
}

type Blobs interface {
	Write(data []byte) (path string, err error)
	WritePath(path string, data []byte) error
	Read(path string) ([]byte, error)
	Exists(path string) bool
}

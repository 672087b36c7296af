package handlers

import (
	"context"
	"net/http"

	"github.com/redis/go-redis/v9"

	"lipsync/internal/pkg/logger"
	"lipsync/internal/ports"
	"lipsync/internal/syncflow"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// StoreState exposes the shared record store connection without dialing.
type StoreState interface {
	Peek() (ports.RecordStore, bool)
}

type Deps struct {
	Flow                *syncflow.Service
	Store               StoreState
	RDB                 *redis.Client
	InferenceProvider   string
	UploadcarePublicKey string
	Version             string
	Log                 *logger.Logger
}

type Handler struct {
	flow        *syncflow.Service
	store       StoreState
	rdb         *redis.Client
	inference   string
	uploadcare  string
	version     string
	log         *logger.Logger
	pingTimeout func(context.Context) (context.Context, context.CancelFunc)
}

func New(d Deps) *Handler {
	if d.Version == "" {
		d.Version = "0.1.0"
	}
	return &Handler{
		flow:        d.Flow,
		store:       d.Store,
		rdb:         d.RDB,
		inference:   d.InferenceProvider,
		uploadcare:  d.UploadcarePublicKey,
		version:     d.Version,
		log:         d.Log,
		pingTimeout: defaultPingTimeout,
	}
}

func limitBody(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
}

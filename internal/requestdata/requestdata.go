package requestdata

import (
	"context"

	"github.com/google/uuid"
)

var requestDataKey = struct{}{}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	val := ctx.Value(requestDataKey)
	if rd, ok := val.(*RequestData); ok {
		return rd
	}
	return nil
}

// RequestData carries the identity claims the external auth service put in
// the bearer token. FiliereID is only present for student tokens.
type RequestData struct {
	TokenString string
	UserID      uuid.UUID
	Role        string
	FiliereID   uuid.UUID
}

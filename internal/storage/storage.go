package storage

import "extrinsicScope/internal/model"

// Storage defines a sink for decoded block activity and the decode
// failures encountered while producing it.
type Storage interface {
	PutActivityBatch(activity []model.BlockActivity) error
	PutDecodeErrors(errs []model.DecodeError) error
}

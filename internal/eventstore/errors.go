package eventstore

import (
	ferrors "git.home.luguber.info/inful/izupress/internal/foundation/errors"
)

func storeError(err error, message string) error {
	return ferrors.WrapError(err, ferrors.CategoryEventStore, message).Build()
}

func payloadError(err error, eventType, runID string) error {
	return ferrors.WrapError(err, ferrors.CategoryEventStore, "encode event payload").
		WithContext("event", eventType).
		WithContext("run_id", runID).
		Build()
}

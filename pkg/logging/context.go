package logging

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// WithTx creates a log entry with transaction context.
//
// Example:
//
//	log := logging.WithTx(tid.ID())
//	log.Debug("commit started")
func WithTx(txID int64) *logrus.Entry {
	return GetLogger().WithField("tx_id", txID)
}

// WithPage creates a log entry with page context.
// Useful for buffer pool and storage operations.
func WithPage(pageID fmt.Stringer) *logrus.Entry {
	return GetLogger().WithField("page", pageID.String())
}

// WithTxPage creates a log entry with both transaction and page context.
func WithTxPage(txID int64, pageID fmt.Stringer) *logrus.Entry {
	return GetLogger().WithFields(logrus.Fields{
		"tx_id": txID,
		"page":  pageID.String(),
	})
}

// WithComponent creates a log entry with component/subsystem context.
func WithComponent(component string) *logrus.Entry {
	return GetLogger().WithField("component", component)
}

// WithError creates a log entry carrying err in structured form.
func WithError(err error) *logrus.Entry {
	return GetLogger().WithError(err)
}

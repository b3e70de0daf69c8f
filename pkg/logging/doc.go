// Package logging provides a process-wide structured logger for the storage engine.
//
// The package wraps [github.com/sirupsen/logrus] and exposes a single global
// logger that is initialized once and then retrieved via GetLogger. All
// subsystems obtain their logger through this package so that log level and
// output destination are controlled from a single place.
//
// # Initialisation
//
// Call Init (or InitDefault for sensible defaults) once at program startup:
//
//	if err := logging.Init(logging.Config{Level: logging.LevelDebug, Format: "json"}); err != nil {
//	    log.Fatal(err)
//	}
//
// If GetLogger is called before Init, a default stderr logger at WARN level
// is created lazily so that packages that log during tests stay quiet.
//
// # Context helpers
//
// Several helpers return entries pre-populated with structured fields:
//
//	log := logging.WithTx(tid.ID())         // adds tx_id field
//	log := logging.WithPage(pid)            // adds page field
//	log := logging.WithComponent("lock")    // adds component field
package logging

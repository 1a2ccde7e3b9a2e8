package storeevents

import "github.com/zoobzio/capitan"

// Field keys for store events.
var (
	// KeyStore is the store name.
	KeyStore = capitan.NewStringKey("store")

	// KeyContainer is the container identifier.
	KeyContainer = capitan.NewIntKey("container")

	// KeyScope is the scope identifier.
	KeyScope = capitan.NewIntKey("scope")

	// KeyBinding is the binding identifier.
	KeyBinding = capitan.NewIntKey("binding")

	// KeyKind is the patch kind.
	KeyKind = capitan.NewStringKey("kind")

	// KeyKeys is the number of patched keys.
	KeyKeys = capitan.NewIntKey("keys")

	// KeyIgnored lists ignored patch keys, comma separated.
	KeyIgnored = capitan.NewStringKey("ignored")

	// KeyVersion is the container version after the update.
	KeyVersion = capitan.NewIntKey("version")

	// KeyNotified is the number of subscribers invoked.
	KeyNotified = capitan.NewIntKey("notified")

	// KeySubscribers is the subscriber count after a change.
	KeySubscribers = capitan.NewIntKey("subscribers")

	// KeyDuration is the update duration.
	KeyDuration = capitan.NewDurationKey("duration")

	// KeyError is the error message when an update fails.
	KeyError = capitan.NewStringKey("error")
)

// Package session keeps game sessions in memory and optionally in storage.
//
// A Manager maps case-insensitive session IDs to sessions, each with its
// own engine and input dispatcher. Empty IDs get a random 4-character hex
// ID that is unused both in memory and in storage.
//
// Two SessionPersistence backends exist:
//   - FilePersistence writes one JSON document per session
//   - SQLitePersistence keeps a snapshot row per session plus an
//     append-only swap log keyed by UUID
//
// Both store the config by ID and rebuild the engine on load, so restored
// sessions pick up edited config files. A session whose stored board is
// not a valid arrangement fails to load.
//
// Usage:
//
//	persistence, err := session.NewSQLitePersistence("data/sessions.db", configs)
//	manager := session.NewManagerWithPersistence(persistence)
//	sess, err := manager.Create("", configs.GetDefault())
package session

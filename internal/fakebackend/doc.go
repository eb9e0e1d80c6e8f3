// Package fakebackend is an in-memory SIKAD backend for tests and local runs.
//
// It speaks the same envelope ({"success","data","message"}) and routes the real
// backend does, issues HS256 tokens, and keeps every record in process memory.
// Seeded accounts carry bcrypt hashes the way an imported user table would; accounts
// registered through the API are hashed with Argon2id, and seeded hashes are upgraded
// on first successful login.
package fakebackend

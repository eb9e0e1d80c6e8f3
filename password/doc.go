// Package password holds the account password rules and the Argon2id hasher used by
// the development backend.
//
// # Policy
//
// [Check] enforces the registration rules: at least eight characters with a lower-case
// letter, an upper-case letter, a digit and one of @$!%*?&.
//
// # Hash format
//
// Hashes are PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Hasher.NeedsRehash] reports hashes made with weaker parameters.
package password

// Package auth keeps CM Cloud logins between runs.
//
// Accounts are looked up by email in a chain of stores: the system keychain,
// an AES-GCM encrypted file under the user config directory, and finally the
// QUICKPIC_EMAIL / QUICKPIC_PASSWORD environment variables, which are
// read-only.
package auth

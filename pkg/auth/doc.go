// Package auth stores the session credential used to browse the target
// service. A Manager consults the system keychain, an AES-GCM encrypted file,
// the environment (IGHARVEST_SESSION_ID or IG_SESSIONID) and a plain
// IG_SESSIONID.txt file, in that order.
package auth

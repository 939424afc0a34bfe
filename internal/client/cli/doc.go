// Package cli provides the interactive Site of Sites terminal client.
//
// It wires configuration, the durable token store, the HTTP client and the
// coordination core (session manager, search engine, modal coordinator)
// behind a REPL. Typical flow: restore the session from the stored
// credential, start a background revalidation watcher, then execute user
// commands.
//
// Key features:
//   - Register / Login / Logout with retry-or-switch between the two forms
//   - Interactive user search (bubbletea screen) and one-shot search
//   - Public profiles, own profile settings and avatar upload
//   - Project list / add / edit / delete
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App, StartSessionWatcher and runREPL for details.
package cli

// Package launcher terminates running instances of the installed
// application (scoped to the current user) and spawns the freshly
// installed executable detached from the terminal.
package launcher

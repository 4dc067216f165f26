// Package desktop writes the freedesktop.org entry that registers the
// installed application with launchers and menus. The entry file is fully
// owned by the installer and regenerated on every install.
package desktop

// Package pathutils resolves user-supplied and default filesystem locations.
package pathutils

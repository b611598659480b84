// Package cache stores downloaded tiles on disk, one directory tree per style.
package cache

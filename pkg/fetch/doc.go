// Package fetch provides the HTTP JSON fetcher used by dashboard refreshers.
package fetch

//go:build !linux

package mounts

import (
	"context"
	"errors"
)

type Watcher struct{}

func NewWatcher() *Watcher {
	return &Watcher{}
}

func (w *Watcher) Watch(ctx context.Context) (<-chan struct{}, error) {
	return nil, errors.New("mount table watching is not supported on this platform")
}

/*******************************************************************************
* Contributors: BMC Helix, Inc.
*
* (c) Copyright 2020-2025 BMC Helix, Inc.

* SPDX-License-Identifier: Apache-2.0
*******************************************************************************/

package publisher

import (
	"context"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
)

// MultiPublisher fans a payload out to every configured publisher concurrently.
// A failing publisher does not stop the others; all failures are returned together.
type MultiPublisher struct {
	publishers []Publisher
}

func NewMultiPublisher(publishers ...Publisher) *MultiPublisher {
	m := &MultiPublisher{}
	for _, p := range publishers {
		if p != nil {
			m.publishers = append(m.publishers, p)
		}
	}
	return m
}

func (m *MultiPublisher) Add(p Publisher) {
	m.publishers = append(m.publishers, p)
}

func (m *MultiPublisher) Len() int {
	return len(m.publishers)
}

func (m *MultiPublisher) Publish(ctx context.Context, topic string, payload interface{}) error {
	var (
		mu   sync.Mutex
		errs error
	)
	g := new(errgroup.Group)
	g.SetLimit(maxConcurrency)
	for _, p := range m.publishers {
		p := p
		g.Go(func() error {
			if err := p.Publish(ctx, topic, payload); err != nil {
				mu.Lock()
				errs = multierror.Append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

func (m *MultiPublisher) Close() {
	for _, p := range m.publishers {
		p.Close()
	}
}

/*******************************************************************************
* Contributors: BMC Helix, Inc.
*
* (c) Copyright 2020-2025 BMC Helix, Inc.

* SPDX-License-Identifier: Apache-2.0
*******************************************************************************/

package publisher

import (
	"context"
	"strings"
	"time"

	"github.com/edgexfoundry/go-mod-core-contracts/v3/clients/logger"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/pkg/errors"

	twinErrors "skytwin/common/errors"
)

const natsFlushTimeout = 5 * time.Second

// NATSPublisher publishes to "<subjectPrefix>.<topic>" with slashes mapped to dots.
// When a stream name is given the messages go through JetStream and are persisted in that stream.
type NATSPublisher struct {
	conn          *nats.Conn
	js            jetstream.JetStream
	subjectPrefix string
	lc            logger.LoggingClient
}

func NewNATSPublisher(ctx context.Context, server string, subjectPrefix string, stream string, lc logger.LoggingClient, opts ...nats.Option) (*NATSPublisher, error) {
	opts = append([]nats.Option{
		nats.Timeout(10 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			lc.Infof("Disconnected from NATS server %s: %v", server, err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			lc.Infof("Reconnected to NATS server %s", nc.ConnectedUrl())
		}),
	}, opts...)

	nc, err := nats.Connect(server, opts...)
	if err != nil {
		return nil, twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypePublish, "error connecting to NATS server %s: %v", server, err)
	}
	publisher := &NATSPublisher{
		conn:          nc,
		subjectPrefix: subjectPrefix,
		lc:            lc,
	}
	if stream == "" {
		return publisher, nil
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypePublish, "error creating jetstream client: %v", err)
	}
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     stream,
		Subjects: []string{subjectPrefix + ".>"},
	})
	if err != nil {
		nc.Close()
		return nil, twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypePublish, "error creating stream %s: %v", stream, err)
	}
	publisher.js = js
	lc.Infof("Publishing twin updates to NATS stream %s", stream)
	return publisher, nil
}

// Subject maps a topic to the NATS subject it is published on.
func (p *NATSPublisher) Subject(topic string) string {
	subject := strings.Trim(strings.ReplaceAll(topic, "/", "."), ".")
	if p.subjectPrefix == "" {
		return subject
	}
	if subject == "" {
		return p.subjectPrefix
	}
	return p.subjectPrefix + "." + subject
}

func (p *NATSPublisher) Publish(ctx context.Context, topic string, payload interface{}) error {
	data, err := encode(payload)
	if err != nil {
		return err
	}
	subject := p.Subject(topic)

	if p.js != nil {
		if _, err := p.js.Publish(ctx, subject, data); err != nil {
			return twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypePublish, "failed to publish to stream subject %s: %v", subject, err)
		}
		return nil
	}

	if err := p.conn.Publish(subject, data); err != nil {
		return twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypePublish, "failed to publish to %s: %v", subject, err)
	}
	if err := p.flush(ctx); err != nil {
		return twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypePublish, "failed to flush %s: %v", subject, err)
	}
	p.lc.Debugf("Published %d bytes to NATS subject %s", len(data), subject)
	return nil
}

func (p *NATSPublisher) flush(ctx context.Context) error {
	if _, ok := ctx.Deadline(); ok {
		return p.conn.FlushWithContext(ctx)
	}
	return errors.WithStack(p.conn.FlushTimeout(natsFlushTimeout))
}

func (p *NATSPublisher) Close() {
	if p.conn != nil && !p.conn.IsClosed() {
		if err := p.conn.Drain(); err != nil {
			p.conn.Close()
		}
	}
}

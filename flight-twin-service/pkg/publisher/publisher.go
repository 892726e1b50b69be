/*******************************************************************************
* Contributors: BMC Helix, Inc.
*
* (c) Copyright 2020-2025 BMC Helix, Inc.

* SPDX-License-Identifier: Apache-2.0
*******************************************************************************/

package publisher

import (
	"context"
	"encoding/json"

	twinErrors "skytwin/common/errors"
)

// Publisher delivers twin updates to a downstream transport.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
	Close()
}

func encode(payload interface{}) ([]byte, error) {
	switch p := payload.(type) {
	case []byte:
		return p, nil
	case string:
		return []byte(p), nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, twinErrors.NewCommonTwinErrorf(twinErrors.ErrorTypePublish, "failed to encode payload: %v", err)
	}
	return data, nil
}

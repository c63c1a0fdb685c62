// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "errors"

// ErrUnparsable marks an oracle response that arrived but could not be
// interpreted. Consumers treat it differently from transport failures.
var ErrUnparsable = errors.New("unparsable oracle response")

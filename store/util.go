// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package store

import "time"

func nowMillis() int64 { return time.Now().UnixMilli() }

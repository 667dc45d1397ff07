// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !lfrelease

package lockfree

// AssertEnabled is true when invariant assertions are compiled in.
// Build with -tags lfrelease to remove them.
const AssertEnabled = true

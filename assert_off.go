// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build lfrelease

package lockfree

// AssertEnabled is false in lfrelease builds.
const AssertEnabled = false

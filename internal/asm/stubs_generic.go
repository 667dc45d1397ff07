// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !amd64 && !arm64

package asm

// sink keeps the counted loop from being eliminated.
var sink uint32

// Pause burns cycles iterations on architectures without a spin hint.
func Pause(cycles uint32) {
	for i := uint32(0); i < cycles; i++ {
		sink += i
	}
}

// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build amd64 || arm64

package asm

// Pause executes the CPU spin-wait hint cycles times.
//
// The loop runs in a single nosplit frame without preemption points.
// Pause(0) returns immediately.
//
//go:noescape
//go:nosplit
func Pause(cycles uint32)

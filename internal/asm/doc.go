// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package asm provides architecture-specific helpers for spin loops.
//
// Pause executes the CPU's spin-wait hint (PAUSE on amd64, YIELD on arm64)
// a given number of times. It never enters the Go scheduler, so callers
// keep the non-blocking guarantee of the loop they are spinning in.
// Unsupported architectures fall back to an empty counted loop.
package asm

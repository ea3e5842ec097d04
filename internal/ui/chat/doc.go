// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the Bubble Tea chat surface.
//
// All thread mutation happens on the Bubble Tea event loop: the stream
// runner goroutine converts wire events into messages and the Update
// function applies them through the session reducer. This keeps the
// message log single-writer without locks.
//
// # Key Types
//
//   - Model: the Bubble Tea model for the chat view
//   - StreamRunner: bridges a chat stream into program messages
//   - RefreshLimiter: batches token redraws to a steady frame rate
package chat

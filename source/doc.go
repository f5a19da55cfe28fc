// SPDX-License-Identifier: EPL-2.0

// Package source implements interchangeable playback sources behind one
// capability interface.
//
// BufferSource decodes bytes into memory and starts playing as soon as a
// leading part decodes, upgrading to the full decode without moving the
// playhead. ElementSource delegates to an external media Element. Router
// holds one active source and swaps variants as inputs change:
//
//	r, _ := source.NewRouter(target)
//	_ = r.SetSource(ctx, wavBytes)   // BufferSource
//	r.Play()
//	_ = r.SetSource(ctx, moreBytes)  // same BufferSource, keeps playing
//	_ = r.SetSource(ctx, element)    // replaced by an ElementSource
//
// Every variant emits the same events, see Event.
package source

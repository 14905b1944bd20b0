// Package playback binds one playable audio resource at a time to the
// reader's playback state.
//
// A Controller owns the resource for the current article. Switching articles
// unbinds and disposes the old resource before a fresh one is opened, so
// notifications from a stale resource never reach the state. Resources report
// position, duration, end-of-track and failures through Events; interested
// parties subscribe to the controller with an Observer.
package playback

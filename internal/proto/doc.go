// Package proto implements client-side proxies for the Wayland protocol
// objects waysay depends on: the core interfaces (wl_display, wl_registry,
// wl_compositor, wl_surface, wl_shm, wl_seat and its devices) and the
// wlr-layer-shell extension that provides the overlay surface. Each proxy
// wraps requests as typed methods and decodes events into callback fields.
// Opcodes follow the upstream protocol definitions.
package proto

// Package protocol owns the device wire contract shared by files and
// transport messages.
//
// Ownership boundary:
// - command, request and response type bytes
// - request builders for system, performance and slot traffic
// - bulk transfer envelope (size prefix, trailing CRC)
// - file header literals
//
// Layers below: bits (bit cursor), field (schema engine), schema (tables),
// frame (type/length chunks), section (located sections), crc16.
package protocol

// SPDX-License-Identifier: MPL-2.0

// Package ownerproc runs the owner loop in a child process.
//
// The parent (Remote) and the child (Serve) exchange newline-delimited JSON
// messages over two dedicated pipes the child inherits as fds 3 and 4, so
// nothing the child's native code prints can corrupt the stream. The child's
// stdout is redirected to its stderr, which is left to the logger. On
// Windows the protocol uses stdin and stdout instead. A session is:
//
//	parent -> child   {"type":"start","config":{...},"drain":"reject"}
//	child  -> parent  {"type":"ready"}  or  {"type":"failed","error":"..."}
//	parent -> child   {"type":"call","id":1,"kind":"get_title"}
//	child  -> parent  {"type":"result","id":1,"result":"A"}
//	parent -> child   {"type":"terminate"}
//	child  -> parent  {"type":"stopped"}
//
// Only the closed command catalog travels over the wire; payloads and
// results are decoded into the catalog's types on arrival.
package ownerproc

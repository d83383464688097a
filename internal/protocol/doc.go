// Package protocol implements the build protocol spoken between compd and
// its short-lived clients.
//
// Every exchange is one request followed by one response on a fresh
// connection. Both directions use length-framed binary records: a 4-byte
// little-endian payload length followed by the payload. A request payload
// carries, in order, the protocol version, the compiler hash, the request
// id, the language, the argument count, and each argument as id, index and
// value. A response payload leads with a discriminator byte selecting the
// variant, followed by the variant's fields.
//
// Integers are little-endian fixed width unless stated otherwise. Strings
// and collection counts are prefixed with an unsigned varint length.
//
// Example usage:
//
//	req := protocol.NewCompileRequest(protocol.CSharp, run, internal.CompilerHash(), "")
//	if err := protocol.WriteRequest(conn, req); err != nil {
//	    return err
//	}
//
//	resp, err := protocol.ReadResponse(conn)
//	if err != nil {
//	    return err
//	}
package protocol

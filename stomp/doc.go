/*
Package stomp builds outbound STOMP messages that carry trace context.

A Builder starts from a source message, applies explicit header overrides, then fills in
trace headers without overwriting anything the caller already set. Build splits the result
into typed headers (protocol control and trace identity) and native string headers.
*/
package stomp

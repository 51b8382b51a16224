/*
Package messaging provides a thin template for sending trace-aware STOMP messages.
It builds each outbound message with the stomp package, resolving the in-flight trace
context from the request context, and hands the result to a transport-agnostic Sender.
*/
package messaging

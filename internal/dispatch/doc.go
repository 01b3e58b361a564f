// Package dispatch routes decoded DJ Link packets to the device cache, the position
// tracker and registered listeners.
//
// The network layer owns the socket and calls Dispatcher.HandlePacket for every
// datagram it receives. Listeners run synchronously on that goroutine; each call is
// timed against a budget and calls that run over are logged and counted. A panicking
// listener is recovered so that the remaining listeners still receive the packet.
package dispatch

// Package bridge implements the per-call duplex relay between the
// telephony media stream and the realtime speech service. Each call gets
// an independent CallSession whose two pumps run under one joint lifetime:
// whichever side terminates first tears down both connections. A Manager
// registry exposes live sessions to the monitoring API.
package bridge

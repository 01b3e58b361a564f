// Package beatlink decodes Pioneer DJ Link status and beat packets and models the
// state of the players that send them.
//
// A Client is fed raw datagrams by whatever owns the network sockets:
//
//	client, err := beatlink.New(cfg, beatlink.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	client.AddBeatListener(protocol.BeatListenerFunc(func(b *protocol.Beat) {
//		fmt.Println(b)
//	}))
//
//	for {
//		n, addr, err := conn.ReadFromUDPAddrPort(buf)
//		...
//		client.HandlePacket(protocol.Packet{Data: buf[:n], Addr: addr.Addr(), ReceivedAt: time.Now()})
//	}
//
// The client keeps the latest status of each player, and once a beat grid has been
// supplied for a player's track it also keeps an estimate of the playback position.
package beatlink

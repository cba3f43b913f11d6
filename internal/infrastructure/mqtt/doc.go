// Package mqtt connects the PAS client to an MQTT broker.
//
// The client publishes its status (with a Last Will for crash detection),
// announces the loaded device topology on retained topics and listens for
// reload commands. Subscriptions are restored after a reconnect.
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topics := client.Topics()
//	err = client.Subscribe(topics.TopologyReload(), 1,
//	    func(topic string, payload []byte) error {
//	        return cfg.Reload(ctx)
//	    })
package mqtt

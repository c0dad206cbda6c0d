// Package factory instantiates pluggable modules from configuration. A
// module entry names a type and carries raw settings; the registered
// factory decodes them into its own config struct.
//
//	relays := factory.NewRegistry[relay.Publisher]()
//	_ = relays.Register("webhook", func(conf map[string]any) (relay.Publisher, error) {
//	    var c webhook.Config
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return webhook.NewPublisher(c, nil)
//	})
//	p, err := relays.Create(factory.ModuleConfig{Type: "webhook", Conf: map[string]any{"url": "http://hooks.local"}})
package factory

// Package clientconfig holds the configuration shared by the panel
// clients: OPC UA connection settings, the node lists to read, write and
// monitor, and the device topology of the requested panels.
//
//	cfg := clientconfig.New(loader, "")
//	if err := cfg.LoadConnectionConfiguration("configs/pasclient.yaml"); err != nil {
//	    return err
//	}
//	if err := cfg.LoadDeviceConfiguration(ctx, []string{"1121", "1122"}); err != nil {
//	    return err
//	}
package clientconfig

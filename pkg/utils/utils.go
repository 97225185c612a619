package utils

import (
	"fmt"
	"os/user"
	"time"

	"github.com/vishvananda/netlink"
)

func IsRoot() bool {
	u, err := user.Current()
	if err != nil {
		return false
	}

	return u.Uid == "0"
}

// LinkExists reports whether a network interface with the given name is
// present.
func LinkExists(name string) bool {
	_, err := netlink.LinkByName(name)
	return err == nil
}

// WaitForLink polls until the interface appears or the timeout expires.
// wg-quick returns before the link settles on some systems.
func WaitForLink(name string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if LinkExists(name) {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("interface %s did not appear within %s", name, timeout)
		}
		time.Sleep(200 * time.Millisecond)
	}
}

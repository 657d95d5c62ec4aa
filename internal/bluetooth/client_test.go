package bluetooth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDevicePathFormatsAddress(t *testing.T) {
	c := New("/org/bluez/hci0", "aa:bb:cc:dd:ee:ff")
	require.Equal(t, "/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF", string(c.devicePath()))
}

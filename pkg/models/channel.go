package models

// ClientChannel identifies the distribution channel of the target
// application. The empty value means no channel is selected, in which case
// the controller has no application bundle to launch.
type ClientChannel string

const (
	ChannelDefault  ClientChannel = ""
	ChannelOfficial ClientChannel = "official"
	ChannelBilibili ClientChannel = "bilibili"
	ChannelGlobal   ClientChannel = "global"
	ChannelJapan    ClientChannel = "jp"
	ChannelKorea    ClientChannel = "kr"
)

// channelBundles maps each channel to the bundle identifier the launch
// helper uses to start the application.
var channelBundles = map[ClientChannel]string{
	ChannelOfficial: "com.hypergryph.arknights",
	ChannelBilibili: "com.hypergryph.arknights.bilibili",
	ChannelGlobal:   "com.YoStarEN.Arknights",
	ChannelJapan:    "com.YoStarJP.Arknights",
	ChannelKorea:    "com.YoStarKR.Arknights",
}

// Valid reports whether c is a known channel. The default (empty) channel
// is valid: it means "none selected".
func (c ClientChannel) Valid() bool {
	if c == ChannelDefault {
		return true
	}
	_, ok := channelBundles[c]
	return ok
}

// BundleName returns the application bundle identifier for the channel, or
// an empty string for the default channel.
func (c ClientChannel) BundleName() string {
	return channelBundles[c]
}

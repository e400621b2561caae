package entry

import (
	"context"
)

// LedCount is the number of LEDs of the 13x13 chest matrix
const LedCount = 169

// Entry types shared by the robot's processes. Drivers own the entry of their
// hardware and raise its ready field once initialized; behaviours and the
// gateway read and write the rest.
var (
	Robot = NewSchema("robot",
		String("name", "Elmo V2"),
	)

	Camera = NewSchema("camera",
		String("url", "http://elmo2:8080/stream.mjpg"),
	)

	// Microphone records while record is true; is_recording reports progress
	Microphone = NewSchema("microphone",
		Bool("is_recording", false),
		Bool("record", false),
	)

	Battery = NewSchema("battery",
		Bool(ReadyField, false),
		Int("raw", 0),
		Float("voltage", 0.0),
		Int("i2c_address", 0x48),
		Float("ad_at_13v", 619.517),
		Float("ad_at_16v", 765.021),
		Float("percentage", 100.0),
	)

	// Leds colors holds one [r, g, b] triple per LED; brightness is in [0, 1]
	Leds = NewSchema("leds",
		Bool(ReadyField, false),
		Int("number", LedCount),
		Grid("colors", blankColors(LedCount)),
		Float("brightness", 0.3),
	)

	GPIO = NewSchema("gpio",
		Bool(ReadyField, false),
		Int("button_pin", 17),
		Int("shutdown_pin", 27),
		Int("stay_enable_pin", 4),
		Int("audio_pin", 22),
		Int("monitor_pin", 10),
		Bool("audio_enabled", false),
		Bool("monitor_enabled", false),
		Bool("audio_enable", true),
		Bool("monitor_enable", true),
		Bool("button_pressed", false),
		Bool("robot_shutdown", false),
	)

	// Speakers plays url when set; volume is in [0, 100]
	Speakers = NewSchema("speakers",
		Bool(ReadyField, false),
		Int("volume", 70),
		Nullable("url", nil),
		Nullable("playing", nil),
	)

	TouchSensors = NewSchema("touch_sensors",
		Bool(ReadyField, false),
		Bool("touch_chest", false),
		Bool("touch_head_0", false),
		Bool("touch_head_1", false),
		Bool("touch_head_2", false),
		Bool("touch_head_3", false),
		Int("chest_raw", 0),
		Int("head_0_raw", 0),
		Int("head_1_raw", 0),
		Int("head_2_raw", 0),
		Int("head_3_raw", 0),
		Int("sensitivity", 5),
	)

	// Pan angle is in [min_angle, max_angle]; enable requests torque and
	// enabled reports it
	Pan = servo("pan", 3, 150, 40, 12.0)

	// Tilt mirrors Pan with a narrower range
	Tilt = servo("tilt", 4, 140, 15, 2.3)

	// Onboard drives the chest screen; image, text, url and video may be null
	Onboard = NewSchema("onboard",
		Bool(ReadyField, false),
		Nullable("image", "images/normal.png"),
		Nullable("text", nil),
		Nullable("url", nil),
		Nullable("video", nil),
		Nullable("speech", nil),
	)

	Speech = NewSchema("speech",
		Bool(ReadyField, false),
		String("language", "en"),
		Nullable("say", nil),
		Nullable("saying", nil),
	)

	Server = NewSchema("server",
		Bool(ReadyField, false),
		Int("http_port", 8000),
		Int("udp_port", 5000),
		Int("api_port", 8001),
		String("static_path", "static"),
	)

	Power = NewSchema("power",
		Bool("reboot", false),
		Bool("shutdown", false),
		Bool("gpio_shutdown", true),
		Bool("battery_shutdown", true),
	)

	// Behaviours holds one enable flag per optional behaviour
	Behaviours = NewSchema("behaviour",
		Bool("look_around", false),
		Bool("blush", true),
		Bool("change_mode", true),
	)
)

// Catalog lists every entry type of the robot
func Catalog() []*Schema {
	return []*Schema{
		Robot, Camera, Microphone, Battery, Leds, GPIO, Speakers, TouchSensors,
		Pan, Tilt, Onboard, Speech, Server, Power, Behaviours,
	}
}

func servo(prefix string, id, pidP, limit int, bias float64) *Schema {
	return NewSchema(prefix,
		Bool(ReadyField, false),
		Int("id", id),
		Float("angle", 0),
		Float("current_angle", 0),
		Nullable("angle_ref", nil),
		Bool("enable", false),
		Bool("enabled", false),
		Int("pid_p", pidP),
		Int("pid_current_p", 0),
		Int("pid_d", 100),
		Int("pid_current_d", 0),
		Int("max_angle", limit),
		Int("min_angle", -limit),
		Int("min_playtime", 100),
		Int("max_playtime", 200),
		Int("temperature", 0),
		Float("angle_bias", bias),
	)
}

func blankColors(n int) [][]int {
	colors := make([][]int, n)
	for i := range colors {
		colors[i] = []int{0, 0, 0}
	}
	return colors
}

// HeadTouched reports whether any of the four head sensors is touched
func HeadTouched(ctx context.Context, sensors *Entry) (bool, error) {
	for _, name := range []string{"touch_head_0", "touch_head_1", "touch_head_2", "touch_head_3"} {
		touched, err := sensors.Bool(ctx, name)
		if err != nil {
			return false, err
		}
		if touched {
			return true, nil
		}
	}
	return false, nil
}

// ClearLeds turns every LED off
func ClearLeds(ctx context.Context, leds *Entry) error {
	n, err := leds.Int(ctx, "number")
	if err != nil {
		return err
	}
	return leds.Set(ctx, "colors", blankColors(n))
}

// ServerURL is the base url the HTTP server publishes media under
const ServerURL = "http://elmo:8000"

// ImageURL returns the url of an image served by the HTTP server
func ImageURL(name string) string { return mediaURL("images", name) }

// SoundURL returns the url of a sound served by the HTTP server
func SoundURL(name string) string { return mediaURL("sounds", name) }

// IconURL returns the url of an icon served by the HTTP server
func IconURL(name string) string { return mediaURL("icons", name) }

// VideoURL returns the url of a video served by the HTTP server
func VideoURL(name string) string { return mediaURL("videos", name) }

func mediaURL(kind, name string) string {
	return ServerURL + "/" + kind + "/" + name
}

// BehaviourNames lists the optional behaviours that can be enabled
func BehaviourNames() []string {
	return Behaviours.Names()
}

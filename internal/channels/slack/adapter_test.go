package slack

import "testing"

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"valid", Config{BotToken: "xoxb-1", AppToken: "xapp-1"}, false},
		{"missing bot token", Config{AppToken: "xapp-1"}, true},
		{"missing app token", Config{BotToken: "xoxb-1"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.config.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

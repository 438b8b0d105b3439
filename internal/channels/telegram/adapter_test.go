package telegram

import "testing"

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"valid long polling", Config{Token: "123456789:AAHdqTcvCH1vGWJxfSeofSAs0K5PALDsaw"}, false},
		{"valid webhook", Config{Token: "t", WebhookURL: "https://example.com/tg", ListenAddr: ":8443"}, false},
		{"missing token", Config{}, true},
		{"webhook without listen addr", Config{Token: "t", WebhookURL: "https://example.com/tg"}, true},
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

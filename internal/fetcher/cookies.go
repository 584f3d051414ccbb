package fetcher

import (
	"fmt"
	"os"
)

// resolveCookies returns the cookies file to hand to yt-dlp. A configured file
// path wins; otherwise inline cookie text is written to a temp file that the
// returned cleanup removes. cleanup is never nil.
func resolveCookies(cookiesFile, cookiesText string) (path string, cleanup func(), err error) {
	cleanup = func() {}

	if cookiesFile != "" {
		return cookiesFile, cleanup, nil
	}
	if cookiesText == "" {
		return "", cleanup, nil
	}

	tmp, err := os.CreateTemp("", "mediafetch-cookies-*.txt")
	if err != nil {
		return "", cleanup, fmt.Errorf("failed to create cookies file: %w", err)
	}
	if _, err := tmp.WriteString(cookiesText); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", cleanup, fmt.Errorf("failed to write cookies file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", cleanup, fmt.Errorf("failed to close cookies file: %w", err)
	}

	name := tmp.Name()
	return name, func() { _ = os.Remove(name) }, nil
}

// Package spotify keeps per-user Spotify credentials fresh and calls the Spotify
// Web API on behalf of SoundSpire users.
package spotify

import (
	"golang.org/x/oauth2"
	spotifyoauth "golang.org/x/oauth2/spotify"
)

// Endpoint is Spotify's OAuth2 endpoint with client credentials sent in the form body.
var Endpoint = oauth2.Endpoint{
	AuthURL:   spotifyoauth.Endpoint.AuthURL,
	TokenURL:  spotifyoauth.Endpoint.TokenURL,
	AuthStyle: oauth2.AuthStyleInParams,
}

// DefaultAPIBaseURL is the Spotify Web API root.
const DefaultAPIBaseURL = "https://api.spotify.com/v1"

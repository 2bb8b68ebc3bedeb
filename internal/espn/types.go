package espn

// News is the validated shape of the NBA news feed
type News struct {
	Articles []Article `json:"articles" validate:"required,dive"`
}

// Article is one news item
type Article struct {
	Headline    string  `json:"headline" validate:"required"`
	Description string  `json:"description" validate:"required"`
	Links       Links   `json:"links"`
	Images      []Image `json:"images" validate:"dive"`
}

type Links struct {
	Web WebLink `json:"web"`
}

type WebLink struct {
	Href string `json:"href" validate:"required,url"`
}

type Image struct {
	URL     string `json:"url" validate:"required"`
	Caption string `json:"caption,omitempty"`
	Height  int    `json:"height,omitempty"`
	Width   int    `json:"width,omitempty"`
}

// Scoreboard is the validated shape of the scoreboard feed for one day
type Scoreboard struct {
	Events []Event `json:"events" validate:"dive"`
}

// Event is one scheduled game. The feed nests a single competition per
// event with exactly two competitors.
type Event struct {
	ID           string        `json:"id" validate:"required"`
	Name         string        `json:"name" validate:"required"`
	ShortName    string        `json:"shortName" validate:"required"`
	Competitions []Competition `json:"competitions" validate:"required,len=1,dive"`
}

type Competition struct {
	Competitors []Competitor `json:"competitors" validate:"required,len=2,dive"`
}

type Competitor struct {
	ID       string `json:"id" validate:"required"`
	HomeAway string `json:"homeAway" validate:"required,oneof=home away"`
	// Score stays string-typed: postponed or unplayed games carry
	// non-numeric states.
	Score string `json:"score"`
	Team  Team   `json:"team"`
}

type Team struct {
	Location     string `json:"location" validate:"required"`
	Name         string `json:"name" validate:"required"`
	Abbreviation string `json:"abbreviation" validate:"required"`
	DisplayName  string `json:"displayName" validate:"required"`
	Logo         string `json:"logo" validate:"required"`
}

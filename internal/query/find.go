package query

// FindInput carries the optional filters of a find command. Zero values
// mean "not filtered"; nullable booleans are pointers.
type FindInput struct {
	IP          string // substring of the address
	Hostname    string // substring of the hostname
	Version     string // release-name substring or bare protocol number
	Protocol    int    // exact protocol, used when > 0
	MaxPlayers  int    // exact declared limit, used when > 0
	OnlineGte   int    // at least this many online, used when > 0
	PlayerID    string // uuid present in the player sample
	Description string // substring of the MOTD
	Country     string // exact geo country code
	Cracked     *bool
	HasFavicon  *bool
	Whitelisted *bool
}

// implausibly large online counts indicate spoofed status responses
const onlineSanityCap = 150000

// Build assembles the find descriptor: sanity filters, the user's filters,
// and a leading random-sample ordering, matching the default browse shape.
func Build(in FindInput) *Descriptor {
	conds := []Condition{
		Cond("players.max", OpGt, 0),
		Cond("players.online", OpLt, onlineSanityCap),
	}

	if in.IP != "" {
		conds = append(conds, Cond("ip", OpContains, in.IP))
	}
	if in.Hostname != "" {
		conds = append(conds, Cond("hostname", OpContains, in.Hostname))
	}
	if in.Protocol > 0 {
		conds = append(conds, Cond("version.protocol", OpEq, in.Protocol))
	} else if in.Version != "" {
		conds = append(conds, Cond("version.name", OpContains, in.Version))
	}
	if in.MaxPlayers > 0 {
		conds = append(conds, Cond("players.max", OpEq, in.MaxPlayers))
	}
	if in.OnlineGte > 0 {
		conds = append(conds, Cond("players.online", OpGt, in.OnlineGte-1))
	}
	if in.PlayerID != "" {
		conds = append(conds, Cond("players.sample", OpContains, in.PlayerID))
	}
	if in.Description != "" {
		conds = append(conds, Cond("description", OpContains, in.Description))
	}
	if in.Country != "" {
		conds = append(conds, Cond("geo.country", OpEq, in.Country))
	}
	if in.Cracked != nil {
		conds = append(conds, Cond("cracked", OpEq, *in.Cracked))
	}
	if in.HasFavicon != nil {
		conds = append(conds, Cond("hasFavicon", OpEq, *in.HasFavicon))
	}
	if in.Whitelisted != nil {
		conds = append(conds, Cond("whitelist", OpEq, *in.Whitelisted))
	}

	return &Descriptor{Stages: []Stage{
		MatchStage(conds...),
		SampleStage(SafetyCap),
	}}
}

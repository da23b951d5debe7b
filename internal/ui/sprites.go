package ui

// clip is one named animation of the built-in character asset.
type clip struct {
	name   string
	frames [][]string
}

// spriteHeight is the row count of every frame.
const spriteHeight = 5

// Clip order matters: the first clip is the fallback when a cue does not
// match anything.
var spriteClips = []clip{
	{name: "Hello", frames: [][]string{
		{
			`   .-"""-.   `,
			`  /  o o  \  `,
			` |    ^    | `,
			`  \  \_/  /  `,
			`   '-----'   `,
		},
		{
			`   .-"""-.   `,
			`  /  - -  \  `,
			` |    ^    | `,
			`  \  \_/  /  `,
			`   '-----'   `,
		},
	}},
	{name: "Peek", frames: [][]string{
		{
			`   .-"""-.   `,
			`  /  o  o \  `,
			` |    ^    | `,
			`  \   -   /  `,
			`   '-----'   `,
		},
		{
			`   .-"""-.   `,
			`  / o  o  \  `,
			` |    ^    | `,
			`  \   -   /  `,
			`   '-----'   `,
		},
	}},
	{name: "Suspicious", frames: [][]string{
		{
			`   .-"""-.   `,
			`  /  ≖ ≖  \  `,
			` |    ^    | `,
			`  \  ---  /  `,
			`   '-----'   `,
		},
		{
			`   .-"""-.   `,
			`  /  ≖_≖  \  `,
			` |    ^    | `,
			`  \  ---  /  `,
			`   '-----'   `,
		},
	}},
	{name: "Angry", frames: [][]string{
		{
			`   .-"""-.   `,
			`  / \o o/ \  `,
			` |    ^    | `,
			`  \  /-\  /  `,
			`   '-----'   `,
		},
		{
			`  ~.-"""-.~  `,
			`  / \O O/ \  `,
			` |    ^    | `,
			`  \  /=\  /  `,
			`   '-----'   `,
		},
	}},
	{name: "strike", frames: [][]string{
		{
			`   .-"""-.   `,
			`  / >   < \  `,
			` |    ^    |/`,
			`  \  \O/  /  `,
			`   '-----'   `,
		},
	}},
	{name: "bye", frames: [][]string{
		{
			`   .-"""-.   `,
			`  /  ^ ^  \ o`,
			` |    ^    |/`,
			`  \  \_/  /  `,
			`   '-----'   `,
		},
	}},
}

// clipNames lists the asset's clips in order.
func clipNames() []string {
	names := make([]string, len(spriteClips))
	for i, c := range spriteClips {
		names[i] = c.name
	}
	return names
}

func findClip(name string) clip {
	for _, c := range spriteClips {
		if c.name == name {
			return c
		}
	}
	return spriteClips[0]
}

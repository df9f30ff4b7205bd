package main

import "github.com/urfave/cli/v3"

func pageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "page",
			Usage: "Zero-based page number",
		},
		&cli.IntFlag{
			Name:  "size",
			Usage: "Page size",
			Value: 20,
		},
	}
}

func listCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "list",
		Usage:  "List catalogued sheet music",
		Flags:  pageFlags(),
		Action: r.List,
	}
}

func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search sheet music by title or writer",
		Commands: []*cli.Command{
			{
				Name:      "title",
				Usage:     "Titles containing the query",
				Arguments: []cli.Argument{&cli.StringArg{Name: "query"}},
				Flags:     pageFlags(),
				Action:    r.SearchTitle,
			},
			{
				Name:      "writer",
				Usage:     "Writers containing the query",
				Arguments: []cli.Argument{&cli.StringArg{Name: "query"}},
				Flags:     pageFlags(),
				Action:    r.SearchWriter,
			},
		},
	}
}

func showCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show one sheet music record with its pdfs",
		Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
		Action:    r.Show,
	}
}

func downloadCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "download",
		Usage:     "Download an s3://, http(s):// or file:// object into the download directory",
		Arguments: []cli.Argument{&cli.StringArg{Name: "url"}},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Usage:   "Directory to write into",
			},
		},
		Action: r.Download,
	}
}

func tokenCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Issue a bearer token for a member",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:     "member-id",
				Usage:    "Member id placed in the sub claim",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "email",
				Usage: "Member email",
			},
			&cli.DurationFlag{
				Name:  "ttl",
				Usage: "Token lifetime, zero for no expiry",
				Value: defaultTokenTTL,
			},
		},
		Action: r.Token,
	}
}

func migrateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "migrate",
		Usage:  "Create the database schema",
		Action: r.Migrate,
	}
}

/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultMaxGames = 8

// app is the set of services one CLI invocation shares. The session cache
// lives only as long as the process, the way a browser tab would hold it.
type app struct {
	cfg        *Config
	log        zerolog.Logger
	out        io.Writer
	api        *APIClient
	identities *IdentityStore
	sessions   *SessionCache
	nav        *terminalNavigator
	lobby      *Lobby
}

func newApp(cfg *Config, cmd *cobra.Command) (*app, error) {
	log := newLogger(cfg, cmd.ErrOrStderr())

	durable, err := NewDurableStorage(cfg.dataDir, cfg.baseURL)
	if err != nil {
		return nil, fmt.Errorf("open data dir: %w", err)
	}

	a := &app{
		cfg:        cfg,
		log:        log,
		out:        cmd.OutOrStdout(),
		api:        NewAPIClient(cfg.baseURL, cfg.timeout, log),
		identities: NewIdentityStore(durable, log),
		sessions:   NewSessionCache(NewVolatileStorage(), log),
		nav:        newTerminalNavigator(cmd.OutOrStdout()),
	}
	a.lobby = NewLobby(a.api, a.identities, a.sessions, a.nav, log)

	return a, nil
}

func newUserCmd(cfg *Config, v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage the saved user.",
	}

	create := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a user and save it for later sessions.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cfg, cmd)
			if err != nil {
				return err
			}

			name := strings.Join(args, " ")

			var user UserIdentity
			if cfg.offline {
				user, err = a.lobby.CreateOfflineUser(name)
			} else {
				user, err = a.lobby.CreateUser(cmd.Context(), name)
			}
			if err != nil {
				return fmt.Errorf("create user: %s", describeError(err))
			}

			fmt.Fprintf(a.out, "Playing as %s (%s)\n", user.Name, user.ID)
			return nil
		},
	}
	create.Flags().BoolVar(&cfg.offline, "offline", false, "generate the user id locally instead of asking the server (env: CARDROOM_OFFLINE)")
	bindEnv(v, create.Flags())

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the saved user, checking it with the server.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cfg, cmd)
			if err != nil {
				return err
			}

			user, err := a.lobby.VerifyUser(cmd.Context())
			switch {
			case errors.Is(err, ErrNoIdentity):
				fmt.Fprintln(a.out, "No saved user. Run \"cardroom user create NAME\".")
				return nil
			case err != nil:
				fmt.Fprintf(a.out, "Play as %s (could not check with server: %s)\n", user.Name, describeError(err))
				return nil
			}

			fmt.Fprintf(a.out, "Play as %s (%s)\n", user.Name, user.ID)
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Forget the saved user.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cfg, cmd)
			if err != nil {
				return err
			}
			return a.identities.Clear()
		},
	}

	cmd.AddCommand(create, show, clearCmd)

	return cmd
}

func newRoomCmd(cfg *Config, v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "room",
		Short: "Create, join and play rooms.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return cfg.validateRoom()
		},
	}

	fs := cmd.PersistentFlags()
	fs.StringVar(&cfg.password, "password", "", "room password (env: CARDROOM_PASSWORD)")
	fs.IntVar(&cfg.maxGames, "max-games", defaultMaxGames, "games to play when starting as host (env: CARDROOM_MAX_GAMES)")
	bindEnv(v, fs)

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a room and take a seat as host.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cfg, cmd)
			if err != nil {
				return err
			}

			grant, err := a.lobby.CreateRoom(cmd.Context(), cfg.players, cfg.password)
			if err != nil {
				return fmt.Errorf("create room: %s", describeError(err))
			}

			fmt.Fprintf(a.out, "Created room %s\n", grant.Room.Code)
			return a.mount(cmd.Context(), cmd.InOrStdin())
		},
	}
	create.Flags().IntVar(&cfg.players, "max-players", maxPlayers, "seats in the room, 2-4 (env: CARDROOM_MAX_PLAYERS)")
	bindEnv(v, create.Flags())

	join := &cobra.Command{
		Use:   "join CODE",
		Short: "Join a room by its code.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cfg, cmd)
			if err != nil {
				return err
			}

			grant, err := a.lobby.JoinRoom(cmd.Context(), args[0], cfg.password)
			if err != nil {
				return fmt.Errorf("join room: %s", describeError(err))
			}

			fmt.Fprintf(a.out, "Joined room %s\n", grant.Room.Code)
			return a.mount(cmd.Context(), cmd.InOrStdin())
		},
	}

	watch := &cobra.Command{
		Use:   "watch CODE",
		Short: "Open a room you were already in, taking your seat back.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cfg, cmd)
			if err != nil {
				return err
			}

			code := normalizeRoomCode(args[0])
			if err := a.sessions.Set(SessionUpdate{RoomCode: &code}); err != nil {
				return err
			}

			return a.mount(cmd.Context(), cmd.InOrStdin())
		},
	}

	share := &cobra.Command{
		Use:   "share CODE",
		Short: "Print an invite for a room, with a QR code.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := normalizeRoomCode(args[0])
			link := inviteURL(cfg.webBase, code)

			qr, err := qrcode.New(link, qrcode.Medium)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprint(out, qr.ToSmallString(false))
			fmt.Fprintln(out, inviteText(cfg, code))
			return nil
		},
	}
	share.Flags().StringVar(&cfg.webBase, "web-base", defaultWebBase, "base URL of the web client used in invites (env: CARDROOM_WEB_BASE)")
	bindEnv(v, share.Flags())

	cmd.AddCommand(create, join, watch, share)

	return cmd
}

// mount shows the room in the session cache until the user leaves or the
// room goes away.
func (a *app) mount(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	view := NewRoomView(RoomViewDeps{
		Identities:   a.identities,
		Sessions:     a.sessions,
		API:          a.api,
		Navigator:    a.nav,
		WebsocketURL: websocketURL(a.cfg.baseURL),
		Password:     a.cfg.password,
		Log:          a.log,
		OnChange: func(u ViewUpdate) {
			renderView(a.out, u)
		},
	})

	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			msg, quit := runPrompt(ctx, view, a.cfg, scanner.Text())
			if msg != "" {
				fmt.Fprintln(a.out, msg)
			}
			if quit {
				break
			}
		}
		cancel()
	}()

	err := view.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

const promptHelp = `commands:
  ready | unready        mark yourself ready in the waiting room
  start [games]          deal a new game (host only)
  play <cards>           play cards, e.g. "play 3S 3C"
  pass                   pass the turn
  show                   redraw the room
  reconnect              reopen the room channel
  leave                  give up your seat and return to the lobby
  quit                   close the room view`

// runPrompt handles one line typed in the room view. It returns a message
// to print and whether the view should close.
func runPrompt(ctx context.Context, view *RoomView, cfg *Config, line string) (string, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", false
	}

	var err error
	switch strings.ToLower(fields[0]) {
	case "ready":
		err = view.SetReady(true)
	case "unready":
		err = view.SetReady(false)
	case "start":
		games := cfg.maxGames
		if len(fields) > 1 {
			n, convErr := strconv.Atoi(fields[1])
			if convErr != nil || n < 1 {
				return "start takes a positive number of games", false
			}
			games = n
		}
		err = view.StartGame(games)
	case "play":
		cards, parseErr := ParseCards(fields[1:])
		if parseErr != nil {
			return parseErr.Error(), false
		}
		if len(cards) == 0 {
			return "play needs at least one card", false
		}
		err = view.PlayCards(cards)
	case "pass":
		err = view.Pass()
	case "show":
		state, snapErr := view.Snapshot()
		if snapErr != nil {
			return "room view closed", true
		}
		var b strings.Builder
		renderView(&b, ViewUpdate{State: state, Phase: state.Phase(), Channel: view.channels.State()})
		return strings.TrimRight(b.String(), "\n"), false
	case "reconnect":
		err = view.Reconnect(ctx)
	case "leave":
		if err := view.Leave(ctx); err != nil {
			return "room view closed", true
		}
		return "", true
	case "quit", "exit":
		return "", true
	case "help", "?":
		return promptHelp, false
	default:
		return fmt.Sprintf("unknown command %q, type \"help\"", fields[0]), false
	}

	if errors.Is(err, ErrChannelUnavailable) {
		return "not connected to the room, type \"reconnect\" to retry", false
	}
	if err != nil {
		return err.Error(), false
	}
	return "", false
}

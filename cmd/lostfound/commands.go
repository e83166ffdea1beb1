package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lostfound/community/internal/client"
	"github.com/lostfound/community/internal/feed"
)

func newFeedCmd(a *app) *cobra.Command {
	var (
		filter feed.Filter
		page   feed.Page
	)

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Show active listings, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if page.Limit == 0 {
				page.Limit = a.cfg.Feed.PageSize
			}
			if _, err := a.session.Refresh(cmd.Context(), page); err != nil {
				return err
			}
			visible := a.session.Visible(filter)
			if a.asJSON {
				return a.printJSON(visible)
			}
			renderFeed(a.out, visible, a.now())
			return nil
		},
	}

	cmd.Flags().StringVarP(&filter.Term, "query", "q", "", "Search title, description, location, category and tags")
	cmd.Flags().StringVar(&filter.CategoryID, "category", feed.FilterAll, "Category id")
	cmd.Flags().StringVar(&filter.Kind, "kind", feed.FilterAll, "lost, found or all")
	cmd.Flags().IntVar(&page.Limit, "limit", 0, "Page size")
	cmd.Flags().IntVar(&page.Offset, "offset", 0, "Page offset")
	return cmd
}

func newItemCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "item <id>",
		Short: "Show a listing with its comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := a.session.Item(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if a.asJSON {
				return a.printJSON(item)
			}
			renderItem(a.out, item, a.now())
			return nil
		},
	}
}

func newLikeCmd(a *app, like bool) *cobra.Command {
	use, short := "like <id>", "Like a listing"
	if !like {
		use, short = "unlike <id>", "Withdraw your like"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id := args[0]
			if _, err := a.session.Item(ctx, id); err != nil {
				return err
			}

			action := a.session.Like
			if !like {
				action = a.session.Unlike
			}
			if err := action(ctx, id); err != nil {
				return err
			}

			vm, _ := a.session.Reconciler().Get(id)
			if a.asJSON {
				return a.printJSON(vm.EngagementCounts)
			}
			renderEngagement(a.out, &vm)
			return nil
		},
	}
}

func newCommentCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "comment <id> <text>...",
		Short: "Comment on a listing",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id := args[0]
			if _, err := a.session.Item(ctx, id); err != nil {
				return err
			}

			comment, err := a.session.Comment(ctx, id, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			if a.asJSON {
				return a.printJSON(comment)
			}
			renderComment(a.out, comment, a.now())
			return nil
		},
	}
}

func newMineCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mine",
		Short: "Show your own listings, all statuses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			own, err := a.session.Own(cmd.Context())
			if err != nil {
				return err
			}
			if a.asJSON {
				return a.printJSON(own)
			}
			renderFeed(a.out, own, a.now())
			return nil
		},
	}
}

func newPostCmd(a *app) *cobra.Command {
	var (
		in     client.NewListing
		kind   string
		reward float64
		images []string
	)

	cmd := &cobra.Command{
		Use:   "post",
		Short: "Post a lost or found item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in.Kind = feed.Kind(kind)
			if cmd.Flags().Changed("reward") {
				in.RewardOffered = &reward
			}
			for _, path := range images {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("failed to read image: %w", err)
				}
				in.Images = append(in.Images, client.Image{Data: data})
			}

			listing, err := a.client.CreateListing(cmd.Context(), &in)
			if err != nil {
				return err
			}
			if a.asJSON {
				return a.printJSON(listing)
			}
			fmt.Fprintf(a.out, "Posted %s item %q (%s)\n", listing.Kind, listing.Title, listing.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "lost or found")
	cmd.Flags().StringVar(&in.Title, "title", "", "Title")
	cmd.Flags().StringVar(&in.Description, "description", "", "Description")
	cmd.Flags().StringVar(&in.Location, "location", "", "Where it was lost or found")
	cmd.Flags().StringVar(&in.CategoryID, "category", "", "Category id")
	cmd.Flags().StringVar(&in.DateLostFound, "date", "", "Date lost or found (YYYY-MM-DD)")
	cmd.Flags().StringVar(&in.ContactEmail, "email", "", "Contact email")
	cmd.Flags().StringVar(&in.ContactPhone, "phone", "", "Contact phone")
	cmd.Flags().Float64Var(&reward, "reward", 0, "Reward offered")
	cmd.Flags().StringVar(&in.Tags, "tags", "", "Comma separated tags")
	cmd.Flags().StringSliceVar(&images, "image", nil, "Image file, repeatable (at most 5)")
	_ = cmd.MarkFlagRequired("kind")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("description")
	return cmd
}

func newProfileCmd(a *app) *cobra.Command {
	var name, phone string

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or update your profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				profile *client.Profile
				err     error
			)
			if cmd.Flags().Changed("name") || cmd.Flags().Changed("phone") {
				var namePtr, phonePtr *string
				if cmd.Flags().Changed("name") {
					namePtr = &name
				}
				if cmd.Flags().Changed("phone") {
					phonePtr = &phone
				}
				profile, err = a.client.UpdateProfile(cmd.Context(), namePtr, phonePtr)
			} else {
				profile, err = a.client.Profile(cmd.Context())
			}
			if err != nil {
				return err
			}
			if a.asJSON {
				return a.printJSON(profile)
			}
			renderProfile(a.out, profile)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Full name")
	cmd.Flags().StringVar(&phone, "phone", "", "Phone number")
	return cmd
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show community statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := a.client.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if a.asJSON {
				return a.printJSON(stats)
			}
			renderStats(a.out, stats)
			return nil
		},
	}
}

func newCategoriesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			categories, err := a.client.Categories(cmd.Context())
			if err != nil {
				return err
			}
			if a.asJSON {
				return a.printJSON(categories)
			}
			for _, c := range categories {
				fmt.Fprintf(a.out, "%s  %s\n", c.ID, c.Name)
			}
			return nil
		},
	}
}

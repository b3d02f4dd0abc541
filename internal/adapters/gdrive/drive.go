package gdrive

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// Permission is a user permission on a Drive item.
type Permission struct {
	ID    string
	Email string
	Role  string
}

// Permissions is the part of the Drive permissions API the adapter uses.
type Permissions interface {
	List(ctx context.Context, itemID string) ([]Permission, error)
	Create(ctx context.Context, itemID, email, role string) error
	Update(ctx context.Context, itemID, permissionID, role string) error
	Delete(ctx context.Context, itemID, permissionID string) error
}

type drivePermissions struct {
	svc *drive.PermissionsService
}

// NewDrivePermissions authenticates with the service-account key at
// credentialsFile. An empty path yields a nil client.
func NewDrivePermissions(ctx context.Context, credentialsFile string) (Permissions, error) {
	if credentialsFile == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read drive credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, raw, drive.DriveScope)
	if err != nil {
		return nil, fmt.Errorf("parse drive credentials: %w", err)
	}
	svc, err := drive.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return &drivePermissions{svc: svc.Permissions}, nil
}

func (d *drivePermissions) List(ctx context.Context, itemID string) ([]Permission, error) {
	var out []Permission
	err := d.svc.List(itemID).
		SupportsAllDrives(true).
		Fields("nextPageToken", "permissions(id,type,emailAddress,role)").
		Pages(ctx, func(page *drive.PermissionList) error {
			for _, p := range page.Permissions {
				if p.Type != "user" {
					continue
				}
				out = append(out, Permission{ID: p.Id, Email: p.EmailAddress, Role: p.Role})
			}
			return nil
		})
	return out, err
}

func (d *drivePermissions) Create(ctx context.Context, itemID, email, role string) error {
	_, err := d.svc.Create(itemID, &drive.Permission{Type: "user", Role: role, EmailAddress: email}).
		SupportsAllDrives(true).
		SendNotificationEmail(false).
		Context(ctx).
		Do()
	return err
}

func (d *drivePermissions) Update(ctx context.Context, itemID, permissionID, role string) error {
	_, err := d.svc.Update(itemID, permissionID, &drive.Permission{Role: role}).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	return err
}

func (d *drivePermissions) Delete(ctx context.Context, itemID, permissionID string) error {
	return d.svc.Delete(itemID, permissionID).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
}

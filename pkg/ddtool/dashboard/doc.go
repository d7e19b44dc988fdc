// SPDX-License-Identifier: AGPL-3.0-only

/*
Package dashboard contains the model of a dashboards configuration file, the
schema it is validated against and the inheritance of its defaults.

A configuration file looks like:

	version: "1.0"
	defaults:
	  layout_type: ordered
	  refresh_interval: 300
	  tags: ["team:sre"]
	dashboards:
	  - name: "Service overview"
	    widgets:
	      - title: "Requests"
	        type: timeseries
	        query: "sum:requests{*}"
*/
package dashboard
